package calculator

// zigzag is a period-8 wave peaking at phase 2 and bottoming at phase 6.
var zigzag = [8]float64{0, 2, 4, 2, 0, -2, -4, -2}

// ascendingChannel returns 100 + 0.5*i plus a bounded zigzag. Swing highs sit exactly on
// 104 + 0.5*i and swing lows exactly on 96 + 0.5*i; the last bar touches support when n = 100.
func ascendingChannel(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 0.5*float64(i) + zigzag[(i+3)%8]
	}
	return values
}
