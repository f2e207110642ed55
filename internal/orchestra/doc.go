// Package orchestra resolves a set of stores into live, denormalized views.
//
// Given a dispatcher, Reduce walks the store graph depth first, wires every
// store's reducer stream together with the resolved streams of its
// dependencies and returns a Graph of shared views. For each store the
// join:
//
//  1. combines the store's own collection with the latest collection of
//     every dependency, recomputing when any of them changes;
//  2. folds the dependency edges in declaration order, attaching resolved
//     entities through each edge's setter;
//  3. reports ids that could not be found to the dependency store as
//     missing, tagged with the asking store's identifier;
//  4. applies the store's post hook, drops structurally equal repeats and
//     shares the result with replay of the latest value.
//
// Graphs are memoized per dispatcher id. Resolution errors (cycles and
// dependencies that name neither a store nor an external reducer) surface
// on the first Reduce for a dispatcher and can be checked up front with
// Validate.
package orchestra
