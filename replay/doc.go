// Package replay provides replay cache backends for signedreq.
//
// Memory keeps consumed request ids in process and suits a single
// instance. Redis shares them between instances. Both implement
// signedreq.AtomicReplayCache, so a request id is recorded with a single
// set-if-absent operation and two concurrent copies of one request cannot
// both be accepted.
package replay
