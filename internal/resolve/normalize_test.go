// Tests for id, status, and priority normalization.

package resolve

import (
	"testing"

	"github.com/worklens/worklens/internal/item"
)

func TestNormalizeUUID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"CompactHex", "11112222333344445555666677778888", "11112222-3333-4444-5555-666677778888"},
		{"AlreadyCanonical", "11112222-3333-4444-5555-666677778888", "11112222-3333-4444-5555-666677778888"},
		{"Uppercase", "AAAABBBBCCCCDDDDEEEEFFFF00001111", "aaaabbbb-cccc-dddd-eeee-ffff00001111"},
		{"MisplacedHyphens", "1111-2222333344445555-666677778888", "11112222-3333-4444-5555-666677778888"},
		{"TooShort", "abc123", "abc123"},
		{"NonHex32", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"Empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeUUID(tc.in); got != tc.want {
				t.Errorf("NormalizeUUID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	t.Run("Idempotent", func(t *testing.T) {
		for _, in := range []string{
			"11112222333344445555666677778888",
			"not-a-uuid",
			"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		} {
			once := NormalizeUUID(in)
			if twice := NormalizeUUID(once); twice != once {
				t.Errorf("not idempotent for %q: %q != %q", in, twice, once)
			}
		}
	})
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"In Progress", "In Progress"},
		{"  Review  ", "Review"},
		{"", "Not Started"},
		{"   ", "Not Started"},
		{"WEIRD custom Status", "WEIRD custom Status"}, // verbatim, never canonicalized
	}
	for _, tc := range cases {
		if got := MapStatus(tc.in); got != tc.want {
			t.Errorf("MapStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMapPriority(t *testing.T) {
	p := func(v item.Priority) *item.Priority { return &v }
	cases := []struct {
		in   string
		want *item.Priority
	}{
		{"P0", p(item.PriorityP0)},
		{"p2", p(item.PriorityP2)},
		{"P4", p(item.PriorityP3)},
		{"Critical", p(item.PriorityP0)},
		{"BLOCKER", p(item.PriorityP0)},
		{"Important", p(item.PriorityP1)},
		{"moderate", p(item.PriorityP2)},
		{"Trivial", p(item.PriorityP3)},
		{"Critical Bug", p(item.PriorityP0)}, // substring containment
		{"very high!", p(item.PriorityP1)},
		{"somewhat low", p(item.PriorityP3)},
		{"Unknown", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := MapPriority(tc.in)
		switch {
		case got == nil && tc.want != nil:
			t.Errorf("MapPriority(%q) = nil, want %v", tc.in, *tc.want)
		case got != nil && tc.want == nil:
			t.Errorf("MapPriority(%q) = %v, want nil", tc.in, *got)
		case got != nil && tc.want != nil && *got != *tc.want:
			t.Errorf("MapPriority(%q) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}
