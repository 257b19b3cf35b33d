package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
)

func TestKindForTransition(t *testing.T) {
	tests := []struct {
		prev, next idea.Status
		want       Kind
	}{
		{idea.StatusPending, idea.StatusApproved, KindApproved},
		{idea.StatusPending, idea.StatusRejected, KindRejected},
		{idea.StatusApproved, idea.StatusInProgress, KindTaskCreated},
		{idea.StatusInProgress, idea.StatusCompleted, KindCompleted},
		{idea.StatusPending, idea.StatusInProgress, KindStatusChanged},
		{idea.StatusCompleted, idea.StatusPending, KindStatusChanged},
		{idea.StatusApproved, idea.StatusCompleted, KindStatusChanged},
		// Approval decisions win regardless of where the idea came from.
		{idea.StatusInProgress, idea.StatusApproved, KindApproved},
	}

	for _, tt := range tests {
		got := KindForTransition(tt.prev, tt.next)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.prev, tt.next)
	}
}
