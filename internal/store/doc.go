// Package store defines entity stores: independently reducible keyed
// collections that may reference entities of other stores.
//
// A Store is configured with a chaining builder before it is handed to an
// Orchestra:
//
//	users := store.New("users")
//	posts := store.New("posts").
//		DependsOn("users", store.Field("userId"), store.Attach("user")).
//		Expects("user")
//
// Builder calls never fail immediately. The first configuration error is
// kept and reported by Err and by the Orchestra constructor. Once an
// Orchestra seals the store, further builder calls are rejected.
//
// Action constructors (Insert, Remove, Filter, Update and friends) are pure:
// they validate the payload and tag the action with the store identifier.
// Reducer returns the state machine that folds those actions into a
// collection.Collection.
package store
