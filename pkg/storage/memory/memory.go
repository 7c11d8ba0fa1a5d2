// Package memory provides mutex-guarded in-memory implementations of the
// domain persistence gateways. They back unit tests and the local
// development mode; production deployments use the postgres package.
package memory

// paginate applies skip/limit to a slice length and returns the window
// bounds. A non-positive limit means no cap.
func paginate(n, skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if skip > n {
		skip = n
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return skip, end
}
