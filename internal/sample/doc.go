// Package sample assembles training samples from a dataset.Source.
//
// For one image, Builder.Build resizes and molds the pixels, maps the
// instance masks and boxes through the same transform, assigns RPN targets
// against the shared anchor set, caps the instance count and minimizes the
// masks. BuildBatch runs Build for many indices in parallel.
//
// # Randomness
//
// Target sampling and instance capping draw from the *rand.Rand passed to
// Build. BuildBatch gives every index its own generator derived from the
// batch seed and the index, so a batch is reproducible regardless of
// scheduling.
package sample
