package projection

// MergeRecursive returns a new map holding the entries of dst replaced by the entries of src.
// Nested maps are merged key by key, every other value (lists included) of src replaces the one of dst.
// Neither dst nor src are modified.
func MergeRecursive(dst, src map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		res[k] = deepCopy(v)
	}

	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := res[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			res[k] = MergeRecursive(dstMap, srcMap)
			continue
		}

		res[k] = deepCopy(v)
	}

	return res
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		c := make(map[string]interface{}, len(val))
		for k, e := range val {
			c[k] = deepCopy(e)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(val))
		for i, e := range val {
			c[i] = deepCopy(e)
		}
		return c
	}

	return v
}
