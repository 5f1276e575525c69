package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role tags a member's position on the committee.
type Role string

const (
	RoleGovernor Role = "governor"
	RoleDeputy   Role = "deputy"
	RoleInternal Role = "internal"
	RoleExternal Role = "external"
)

// MemberIdentity is immutable reference data for one committee member.
type MemberIdentity struct {
	Key         string
	DisplayName string
	Aliases     []string
	Role        Role
	Former      bool
}

// Resolution failures. Ambiguity is distinct from no-match so callers can
// report both without guessing either way.
var (
	ErrUnresolvedMember = errors.New("author text matches no known member")
	ErrAmbiguousMember  = errors.New("author text matches more than one member")
)

// MemberRegistry holds the closed enumeration of known members, loaded once
// at process start. Alias additions go through config; resolution logic never
// changes per member.
type MemberRegistry struct {
	members map[string]MemberIdentity
	order   []string
}

// NewMemberRegistry builds a registry, normalizing aliases to lower case.
func NewMemberRegistry(members []MemberIdentity) *MemberRegistry {
	reg := &MemberRegistry{members: make(map[string]MemberIdentity, len(members))}
	for _, m := range members {
		aliases := make([]string, 0, len(m.Aliases)+1)
		for _, a := range m.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) == 0 {
			aliases = append(aliases, strings.ToLower(m.DisplayName))
		}
		m.Aliases = aliases
		reg.members[m.Key] = m
		reg.order = append(reg.order, m.Key)
	}
	sort.Strings(reg.order)
	return reg
}

// Get returns the identity for a key.
func (r *MemberRegistry) Get(key string) (MemberIdentity, bool) {
	m, ok := r.members[key]
	return m, ok
}

// Keys returns all member keys in stable order.
func (r *MemberRegistry) Keys() []string {
	return append([]string(nil), r.order...)
}

// DisplayNames returns display names of current and former members, longest
// first, for building passage-split patterns.
func (r *MemberRegistry) DisplayNames() []string {
	names := make([]string, 0, len(r.order))
	for _, k := range r.order {
		names = append(names, r.members[k].DisplayName)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return names
}

// Resolve maps free author text to a member key by case-insensitive alias
// containment. Text matching aliases of two distinct members fails as
// ambiguous rather than picking one.
func (r *MemberRegistry) Resolve(authorText string) (string, error) {
	t := strings.ToLower(authorText)
	if strings.TrimSpace(t) == "" {
		return "", ErrUnresolvedMember
	}

	var hits []string
	for _, key := range r.order {
		for _, alias := range r.members[key].Aliases {
			if strings.Contains(t, alias) {
				hits = append(hits, key)
				break
			}
		}
	}

	switch len(hits) {
	case 0:
		return "", ErrUnresolvedMember
	case 1:
		return hits[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousMember, strings.Join(hits, ", "))
	}
}

// DefaultMembers is the nine-seat committee roster plus former members who
// still appear in historical minutes.
func DefaultMembers() []MemberIdentity {
	return []MemberIdentity{
		{Key: "bailey", DisplayName: "Andrew Bailey", Role: RoleGovernor,
			Aliases: []string{"andrew bailey", "bailey", "governor bailey", "the governor"}},
		{Key: "lombardelli", DisplayName: "Clare Lombardelli", Role: RoleDeputy,
			Aliases: []string{"clare lombardelli", "lombardelli", "deputy governor for monetary policy"}},
		{Key: "breeden", DisplayName: "Sarah Breeden", Role: RoleDeputy,
			Aliases: []string{"sarah breeden", "breeden", "deputy governor for financial stability"}},
		{Key: "ramsden", DisplayName: "Dave Ramsden", Role: RoleDeputy,
			Aliases: []string{"dave ramsden", "ramsden", "sir dave ramsden",
				"deputy governor for markets and banking", "deputy governor, markets and banking"}},
		{Key: "pill", DisplayName: "Huw Pill", Role: RoleInternal,
			Aliases: []string{"huw pill", "pill", "chief economist", "executive director, monetary analysis"}},
		{Key: "mann", DisplayName: "Catherine L. Mann", Role: RoleExternal,
			Aliases: []string{"catherine mann", "catherine l mann", "catherine l. mann",
				"dr catherine mann", "dr mann", "mann"}},
		{Key: "dhingra", DisplayName: "Swati Dhingra", Role: RoleExternal,
			Aliases: []string{"swati dhingra", "dhingra", "dr swati dhingra", "dr dhingra"}},
		{Key: "greene", DisplayName: "Megan Greene", Role: RoleExternal,
			Aliases: []string{"megan greene", "greene"}},
		{Key: "taylor", DisplayName: "Alan Taylor", Role: RoleExternal,
			Aliases: []string{"alan taylor", "taylor", "professor alan taylor", "prof taylor", "professor taylor"}},
		{Key: "broadbent", DisplayName: "Ben Broadbent", Role: RoleDeputy, Former: true,
			Aliases: []string{"ben broadbent", "broadbent", "deputy governor broadbent"}},
		{Key: "haskel", DisplayName: "Jonathan Haskel", Role: RoleExternal, Former: true,
			Aliases: []string{"jonathan haskel", "haskel", "professor haskel", "prof haskel"}},
	}
}
