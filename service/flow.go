package service

import (
	"fmt"
	"strings"

	"github.com/layer-3/questauth/core"
)

// Flow selects how a verified wallet resolves to an account
type Flow string

const (
	FlowSignIn Flow = "sign_in"
	FlowLink   Flow = "link"
)

// Flows lists the accepted verification flows
var Flows = []Flow{FlowSignIn, FlowLink}

// ParseFlow validates a flow name
func ParseFlow(name string) (Flow, error) {
	for _, flow := range Flows {
		if string(flow) == name {
			return flow, nil
		}
	}

	available := make([]string, len(Flows))
	for i, flow := range Flows {
		available[i] = string(flow)
	}
	return "", fmt.Errorf("%w %q, available types: %s", core.ErrUnsupportedFlow, name, strings.Join(available, ", "))
}

// VerifyRequest carries a signed challenge submitted by a client
type VerifyRequest struct {
	Flow           Flow
	ChallengeToken string
	Signature      string
	ClientIP       string

	// SessionToken is the caller's own session, required by the link flow
	SessionToken string
}

func (r VerifyRequest) flow() Flow {
	if r.Flow == "" {
		if r.SessionToken != "" {
			return FlowLink
		}
		return FlowSignIn
	}
	return r.Flow
}
