package sliceops

// SwapBuf returns a reversed copy of in. Bluetooth addresses and UUIDs
// travel little-endian but are printed big-endian.
func SwapBuf(in []byte) []byte {
	a := make([]byte, len(in))
	for i, b := range in {
		a[len(in)-1-i] = b
	}
	return a
}
