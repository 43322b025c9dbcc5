// Package saga coordinates distributed, multi-service transactions as
// sagas: ordered sequences of steps where every step pairs a forward
// effect with a compensating action that can reverse it.  When a step
// fails, the coordinator performs backward recovery over the steps that
// already succeeded, so partially-applied effects are undone without a
// global atomic transaction.  For more on distributed sagas, see this
// 2017 JOTB talk by Caitie McCaffrey:
// https://www.youtube.com/watch?v=0UTOLRTwOX0
//
// Overview
//
//  1. Implement Step for each unit of work, or wrap a pair of functions
//     with NewStepFunc.  Execute performs the forward effect and returns
//     a StepResult whose Output is threaded into Compensate later.
//  2. Build a saga with New (synchronous) or NewConcurrent, appending
//     steps in the order their effects must be applied.
//  3. Call Run exactly once.  The synchronous coordinator blocks the
//     caller and returns an Outcome; the concurrent coordinator returns
//     a Future backed by a worker pool it owns.
//  4. Inspect the Outcome: StatusCommitted means every step succeeded;
//     StatusRolledBack means a step failed and every compensation
//     succeeded; StatusPartiallyRolledBack means at least one
//     compensation also failed and operator attention is required.
//
// Compensation ordering
//
// The synchronous coordinator compensates in strict reverse order of
// execution: the last step to succeed is the first to be compensated.
// The concurrent coordinator deliberately relaxes this: once a failure
// is detected it submits every pending compensation to its worker pool
// at once and waits for all of them to settle.  Compensations are
// assumed to reverse independent prior effects, so running them in
// parallel shrinks rollback latency at the cost of inter-step ordering.
// Callers whose compensations are order-sensitive should use the
// synchronous coordinator.
package saga
