package engine

// MaxPrice maps the first-quarter combined score (or its absence) to
// the maximum acceptable NO price and a regime label. The bands
// partition the integers and the ceiling never rises as the total
// grows; a zero ceiling is an explicit veto, not an open band.
func MaxPrice(q1Total int, q1Known bool) (ceiling int, regime string) {
	switch {
	case !q1Known:
		return 68, "Pregame"
	case q1Total < 48:
		return 78, "Q1 < 48"
	case q1Total < 50:
		return 75, "Q1 48-49"
	case q1Total < 55:
		return 70, "Q1 50-54"
	default:
		return 0, "Q1 >= 55"
	}
}
