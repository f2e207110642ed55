// Package dispatch implements the action source stores reduce over.
//
// A Dispatcher keeps an append-only log of actions and a set of registered
// reductions. Dispatch stamps each action with a logical sequence number,
// appends it to the log and feeds it to every reduction inside one
// stream.Scheduler batch, so every downstream view settles once per action.
//
// Reduce replays the whole log into a new reduction before registering it,
// which means a reduction created late observes the same state as one
// created before the first action.
//
// Re-entrant dispatch (dispatching from inside a subscriber) is queued and
// applied after the current action finishes, preserving FIFO order.
package dispatch
