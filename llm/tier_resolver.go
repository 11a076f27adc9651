package llm

// DefaultTierMap is the built-in default every resolution falls back
// to when no target/universe/agent override supplies a mapping for a
// given tier.
var DefaultTierMap = map[Tier]ModelMapping{
	TierBronze:   {Provider: "local", Model: "local-default"},
	TierSilver:   {Provider: "bedrock", Model: "anthropic.claude-3-haiku"},
	TierGold:     {Provider: "bedrock", Model: "anthropic.claude-3-sonnet"},
	TierPlatinum: {Provider: "bedrock", Model: "anthropic.claude-3-opus"},
}

// TierResolver resolves a tier to a concrete (provider, model) pair
// using the precedence chain target → universe → agent → default
// (spec.md §4.2: "first non-null wins").
type TierResolver struct {
	defaults map[Tier]ModelMapping
}

// NewTierResolver creates a resolver; a nil defaults map uses DefaultTierMap.
func NewTierResolver(defaults map[Tier]ModelMapping) *TierResolver {
	if defaults == nil {
		defaults = DefaultTierMap
	}
	return &TierResolver{defaults: defaults}
}

// Resolve walks the precedence chain and returns the first mapping found.
func (r *TierResolver) Resolve(tier Tier, overrides Overrides) ModelMapping {
	for _, level := range []*Config{overrides.Target, overrides.Universe, overrides.Agent} {
		if level == nil {
			continue
		}
		if mapping, ok := level.TierMap[tier]; ok {
			return mapping
		}
	}
	if mapping, ok := r.defaults[tier]; ok {
		return mapping
	}
	return r.defaults[TierBronze]
}
