package registry

// Adapt normalizes an embedding to the corpus-wide target dimensionality.
// Shorter vectors are right-padded with zeros, longer ones truncated to the
// first target entries. This is a lossy approximation for mixing providers
// of different native dimensionality in one corpus, not a
// semantic-preserving transform.
func Adapt(vec []float32, target int) []float32 {
	if target <= 0 || len(vec) == target {
		return vec
	}

	if len(vec) < target {
		padded := make([]float32, target)
		copy(padded, vec)
		return padded
	}

	return vec[:target]
}
