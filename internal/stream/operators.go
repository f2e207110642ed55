package stream

// Map transforms every value of src with fn.
func Map[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return observable[U]{
		rank: src.Rank(),
		subscribe: func(next func(U)) Subscription {
			return src.Subscribe(func(v T) { next(fn(v)) })
		},
	}
}

// Distinct drops values equal to the previous value seen by the same
// subscriber.
func Distinct[T any](src Observable[T], eq func(a, b T) bool) Observable[T] {
	return observable[T]{
		rank: src.Rank(),
		subscribe: func(next func(T)) Subscription {
			var (
				last T
				has  bool
			)
			return src.Subscribe(func(v T) {
				if has && eq(last, v) {
					return
				}
				last, has = v, true
				next(v)
			})
		},
	}
}
