package converge

import (
	"fmt"

	"github.com/micahrl/cobsync/internal/resource"
)

// ComputePlan compares desired state against the current resource.
// current is nil when the server has no resource with the desired name.
func ComputePlan(desired *Desired, current *resource.Resource) *Plan {
	plan := &Plan{}

	switch desired.State {
	case StateAbsent:
		plan.Remove = current != nil
		return plan
	case StateQuery:
		return plan
	}

	if current == nil {
		// Create: name is set first, then every desired property.
		plan.Create = true
		for _, key := range desired.Properties.Keys() {
			if key == "name" {
				continue
			}
			plan.Sets = append(plan.Sets, SetOp{Key: key, Value: desired.Properties[key]})
		}
		return plan
	}

	// Update: only properties whose value differs.
	for _, key := range desired.Properties.Keys() {
		value := desired.Properties[key]
		known := current.Has(key)
		if !known {
			plan.Unknown = append(plan.Unknown, key)
		}
		cur, _ := current.Get(key)
		if known && resource.Equal(value, cur) {
			continue
		}
		plan.Sets = append(plan.Sets, SetOp{Key: key, Value: value, Current: cur, Known: known})
	}

	return plan
}

// Changed reports whether applying the plan changes the server.
func (p *Plan) Changed() bool {
	return p.Create || p.Remove || len(p.Sets) > 0
}

// Stats returns the number of creates, property sets and removes.
func (p *Plan) Stats() PlanStats {
	s := PlanStats{Sets: len(p.Sets)}
	if p.Create {
		s.Creates = 1
	}
	if p.Remove {
		s.Removes = 1
	}
	return s
}

func (s PlanStats) String() string {
	return fmt.Sprintf("%d create, %d sets, %d removes", s.Creates, s.Sets, s.Removes)
}

// Predict returns the snapshot the server should report once the plan is
// applied to before. Dry-run diffs use it as their after side.
func (p *Plan) Predict(name string, before resource.Properties) resource.Properties {
	if p.Remove {
		return nil
	}
	after := before.Clone()
	if p.Create {
		after = resource.Properties{"name": name}
	}
	if after == nil {
		return nil
	}
	for _, op := range p.Sets {
		after[op.Key] = op.Value
	}
	return after
}
