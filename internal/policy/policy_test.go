package policy

import (
	"testing"

	"github.com/google/uuid"
)

func TestAuthorize(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name     string
		actor    Actor
		action   string
		resource Resource
		allow    bool
	}{
		{"admin may trigger scheduler", Actor{ID: uuid.New(), Role: "admin"}, ActionTriggerScheduler, Resource{Kind: "job"}, true},
		{"admin may manage any template", Actor{ID: stranger, Role: "admin"}, ActionManageTemplate, Resource{Kind: "template", OwnerID: owner}, true},
		{"owner may manage own template", Actor{ID: owner, Role: "user"}, ActionManageTemplate, Resource{Kind: "template", OwnerID: owner}, true},
		{"stranger may not manage template", Actor{ID: stranger, Role: "user"}, ActionManageTemplate, Resource{Kind: "template", OwnerID: owner}, false},
		{"owner may submit own payment", Actor{ID: owner, Role: "user"}, ActionSubmitPayment, Resource{Kind: "payment", OwnerID: owner}, true},
		{"stranger may not submit another's payment", Actor{ID: stranger, Role: "user"}, ActionSubmitPayment, Resource{Kind: "payment", OwnerID: owner}, false},
		{"owner may not review own payment", Actor{ID: owner, Role: "user"}, ActionTransitionPayment, Resource{Kind: "payment", OwnerID: owner}, false},
		{"admin may review any payment", Actor{ID: stranger, Role: "admin"}, ActionTransitionPayment, Resource{Kind: "payment", OwnerID: owner}, true},
		{"user may not read monitoring", Actor{ID: owner, Role: "user"}, ActionReadMonitoring, Resource{Kind: "monitoring"}, false},
		{"ownerless template resource denied for user", Actor{ID: owner, Role: "user"}, ActionManageTemplate, Resource{Kind: "template"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.resource)
			if tt.allow && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allow && err == nil {
				t.Error("expected deny, got allow")
			}
		})
	}
}
