package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	base := Issue{
		Title:     "fix flaky watcher test",
		Status:    StatusOpen,
		Priority:  2,
		CreatedAt: 1000,
		UpdatedAt: 1000,
	}

	tests := []struct {
		name    string
		mutate  func(*Issue)
		wantErr bool
	}{
		{"valid", func(i *Issue) {}, false},
		{"empty title", func(i *Issue) { i.Title = "" }, true},
		{"unknown status", func(i *Issue) { i.Status = "archived" }, true},
		{"priority too low", func(i *Issue) { i.Priority = 0 }, true},
		{"priority too high", func(i *Issue) { i.Priority = 6 }, true},
		{"priority boundary high", func(i *Issue) { i.Priority = 1 }, false},
		{"priority boundary low", func(i *Issue) { i.Priority = 5 }, false},
		{"created after updated", func(i *Issue) { i.UpdatedAt = 999 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := base
			tt.mutate(&issue)
			err := issue.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusSets(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusPaused} {
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusClosed, StatusDuplicate} {
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if Status("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"sorted dedup", []string{"b", "a", "b", "a"}, []string{"a", "b"}},
		{"drops empty", []string{"", "x", ""}, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NormalizeTags(tt.in)); diff != "" {
				t.Errorf("NormalizeTags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCanonicalDepPair(t *testing.T) {
	tests := []struct {
		name     string
		src, dst string
		kind     DepKind
		wantSrc  string
		wantDst  string
	}{
		{"relates swaps", "z-1", "a-1", DepRelates, "a-1", "z-1"},
		{"relates keeps order", "a-1", "z-1", DepRelates, "a-1", "z-1"},
		{"blocks keeps order", "z-1", "a-1", DepBlocks, "z-1", "a-1"},
		{"parent keeps order", "z-1", "a-1", DepParent, "z-1", "a-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := CanonicalDepPair(tt.src, tt.dst, tt.kind)
			if src != tt.wantSrc || dst != tt.wantDst {
				t.Errorf("got (%s, %s), want (%s, %s)", src, dst, tt.wantSrc, tt.wantDst)
			}
		})
	}
}
