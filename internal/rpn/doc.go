// Package rpn assigns region proposal training targets to anchors.
//
// Every anchor starts NEUTRAL and is finalized once per sample as POSITIVE,
// NEGATIVE or left NEUTRAL:
//
//  1. anchors whose best IoU with any ground-truth box is below the low
//     threshold become NEGATIVE;
//  2. for each ground-truth box, the anchor with the highest IoU (lowest index
//     on ties) becomes POSITIVE regardless of its IoU;
//  3. anchors whose best IoU reaches the high threshold become POSITIVE;
//  4. positives beyond half the per-image budget are reset to NEUTRAL at
//     random, then negatives beyond the remaining budget are reset the same
//     way.
//
// Positives forced in step 2 are only dropped in step 4 after every other
// positive, so each ground-truth box keeps an anchor whenever the ground
// truth fits in half the budget.
//
// Sampling draws from the *rand.Rand passed by the caller. A generator must
// not be shared between goroutines without synchronization.
package rpn
