// Package boxcodec converts between box pairs and the normalized regression
// deltas a region proposal network is trained to predict.
//
// A delta is (dy, dx, log(dh), log(dw)): the center shift relative to the
// anchor size and the log size ratio, y axis first.
package boxcodec
