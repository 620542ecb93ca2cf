package anthropic

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint. The assessment instructions are identical for every company in
// a run, so caching them cuts input cost on large sheets.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}
