package config

// Plan describes a subscription tier and its monthly credit grant.
type Plan struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

var plans = map[string]Plan{
	"free":   {Key: "free", Name: "Explorer", Credits: 3},
	"member": {Key: "member", Name: "Member", Credits: 15},
	"global": {Key: "global", Name: "Global", Credits: 50},
}

// FreePlan is the default tier for new accounts and for cancelled
// subscriptions.
func FreePlan() Plan {
	return plans["free"]
}

// PlanByKey resolves a plan by key, falling back to the free tier for
// unknown keys so a malformed billing event can never zero an account.
func PlanByKey(key string) Plan {
	if p, ok := plans[key]; ok {
		return p
	}
	return plans["free"]
}

// Plans returns all tiers, for the pricing endpoint.
func Plans() []Plan {
	return []Plan{plans["free"], plans["member"], plans["global"]}
}
