package authority

import (
	"context"
	"fmt"
	"strings"
)

// Authority is one certificate authority of a team
type Authority struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Fingerprint string `json:"fingerprint"`
	Type        string `json:"type,omitempty"`
}

// AgentInfo identifies the agents authority that devices enroll with
type AgentInfo struct {
	Team        string `json:"team" yaml:"team"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// FindAgentInfo picks the agents authority from a list. Its domain has the
// form agents.<team>.<rest>.
func FindAgentInfo(auths []Authority) (AgentInfo, bool) {
	for _, a := range auths {
		if !strings.HasPrefix(a.Domain, "agents.") {
			continue
		}
		labels := strings.Split(a.Domain, ".")
		if len(labels) < 2 {
			continue
		}
		return AgentInfo{Team: labels[1], Fingerprint: a.Fingerprint}, true
	}
	return AgentInfo{}, false
}

// LookupAgentInfo fetches the authorities and resolves the agents authority
func LookupAgentInfo(ctx context.Context, api API) (AgentInfo, error) {
	auths, err := api.Authorities(ctx)
	if err != nil {
		return AgentInfo{}, fmt.Errorf("failed to list authorities: %w", err)
	}
	info, ok := FindAgentInfo(auths)
	if !ok {
		return AgentInfo{}, fmt.Errorf("no agents authority among %d authorities", len(auths))
	}
	return info, nil
}
