package authx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Requester is the slice of the broker client the verifier needs: a
// synchronous request/reply round-trip. Satisfied by *bridge.Client.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// decodeTokenCmd is the wire command understood by the auth service.
const decodeTokenCmd = "decode-token"

type rpcRequest struct {
	Cmd     string `json:"cmd"`
	Payload string `json:"payload"`
}

type rpcReply struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Error    *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error,omitempty"`
}

// RPCVerifier asks the auth service to decode the token over the broker's
// request/reply channel. Stateless; one outstanding request per call.
type RPCVerifier struct {
	req     Requester
	subject string
	timeout time.Duration
}

func NewRPCVerifier(req Requester, subject string, timeout time.Duration) *RPCVerifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RPCVerifier{req: req, subject: subject, timeout: timeout}
}

func (v *RPCVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrTokenMissing
	}

	body, err := json.Marshal(rpcRequest{Cmd: decodeTokenCmd, Payload: token})
	if err != nil {
		return Identity{}, errors.Wrap(err, "marshal decode-token request")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	raw, err := v.req.Request(ctx, v.subject, body)
	if err != nil {
		// timeout, no responders, broker down: all the same to admission
		return Identity{}, errors.Wrap(ErrAuthUnavailable, err.Error())
	}

	var reply rpcReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Identity{}, errors.Wrap(ErrAuthUnavailable, "malformed auth reply")
	}
	if reply.Error != nil {
		return Identity{}, errors.Wrapf(ErrTokenInvalid, "code=%d msg=%s", reply.Error.Code, reply.Error.Msg)
	}
	if reply.UID == "" {
		return Identity{}, errors.Wrap(ErrTokenInvalid, "reply missing uid")
	}
	return Identity{UID: reply.UID, Username: reply.Username}, nil
}
