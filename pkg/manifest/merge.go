package manifest

// Merge combines two configuration maps. Keys present in primary keep the
// primary value unless both sides hold maps, in which case the maps are
// merged recursively with the same rule. Keys only present in secondary are
// copied verbatim. Lists and scalars are never combined.
//
// Neither input is modified. Nested maps that come from only one side are
// shared with the input, not deep-copied.
func Merge(primary, secondary map[string]any) map[string]any {
	out := make(map[string]any, len(primary)+len(secondary))
	for k, v := range primary {
		out[k] = v
	}
	for k, sv := range secondary {
		pv, ok := out[k]
		if !ok {
			out[k] = sv
			continue
		}
		pm, pok := pv.(map[string]any)
		sm, sok := sv.(map[string]any)
		if pok && sok {
			out[k] = Merge(pm, sm)
		}
	}
	return out
}

// MergeAll folds Merge over docs from left to right, so earlier documents
// take precedence over later ones.
func MergeAll(docs ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, doc := range docs {
		out = Merge(out, doc)
	}
	return out
}
