package planner

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mmynk/splitsync/internal/models"
)

// UnresolvedIdentityError reports that a member has no counterpart in the
// target group. Callers must block the transfer and ask the user to pick
// manually; guessing past the matching rules loses money to the wrong
// person.
type UnresolvedIdentityError struct {
	MemberID   string
	MemberName string
}

func (e *UnresolvedIdentityError) Error() string {
	return fmt.Sprintf("no matching member for %q in target group", e.MemberName)
}

type identityKey struct {
	sourceGroupID  string
	sourceMemberID string
	targetGroupID  string
}

// IdentityRegistry remembers which members of independent groups are the
// same person. Links live for the session only; confirmed matches are
// recorded so later transfers between the same groups skip name matching.
type IdentityRegistry struct {
	mu    sync.RWMutex
	links map[identityKey]string
}

// NewIdentityRegistry returns an empty registry.
func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{links: make(map[identityKey]string)}
}

// Link records that sourceMemberID in sourceGroupID and targetMemberID in
// targetGroupID are the same person. The link is stored in both directions.
func (r *IdentityRegistry) Link(sourceGroupID, sourceMemberID, targetGroupID, targetMemberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[identityKey{sourceGroupID, sourceMemberID, targetGroupID}] = targetMemberID
	r.links[identityKey{targetGroupID, targetMemberID, sourceGroupID}] = sourceMemberID
}

func (r *IdentityRegistry) lookup(sourceGroupID, sourceMemberID, targetGroupID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.links[identityKey{sourceGroupID, sourceMemberID, targetGroupID}]
	return id, ok
}

// Resolve finds the member of the target group corresponding to the given
// source member. Strategies are tried in order, first hit wins:
//
//  1. a link previously recorded in this registry,
//  2. exact full-name match, case-insensitive,
//  3. first-name match, case-insensitive,
//  4. substring containment in either direction, case-insensitive.
//
// Within a strategy, the earliest member in the target list wins. If no
// strategy matches, an *UnresolvedIdentityError is returned. Successful
// resolutions are recorded as links so later calls take the first path.
func (r *IdentityRegistry) Resolve(sourceGroupID string, member models.Member, targetGroupID string, targetMembers []models.Member) (models.Member, error) {
	if id, ok := r.lookup(sourceGroupID, member.ID, targetGroupID); ok {
		for _, candidate := range targetMembers {
			if candidate.ID == id {
				return candidate, nil
			}
		}
		// The linked member left the target group; fall through to name
		// matching.
	}

	name := strings.ToLower(strings.TrimSpace(member.Name))
	if name == "" {
		return models.Member{}, &UnresolvedIdentityError{MemberID: member.ID, MemberName: member.Name}
	}
	matchers := []func(candidate string) bool{
		func(candidate string) bool { return candidate == name },
		func(candidate string) bool { return firstName(candidate) == firstName(name) },
		func(candidate string) bool {
			return strings.Contains(candidate, name) || strings.Contains(name, candidate)
		},
	}

	for _, matches := range matchers {
		for _, candidate := range targetMembers {
			candidateName := strings.ToLower(strings.TrimSpace(candidate.Name))
			// An empty candidate name must not win the substring strategy.
			if candidateName == "" {
				continue
			}
			if matches(candidateName) {
				r.Link(sourceGroupID, member.ID, targetGroupID, candidate.ID)
				return candidate, nil
			}
		}
	}
	return models.Member{}, &UnresolvedIdentityError{MemberID: member.ID, MemberName: member.Name}
}

// firstName returns the first whitespace-separated token of an
// already-lowercased name.
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
