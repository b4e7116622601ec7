package shard

// PayloadBytes exposes payloadBytes for testing.
func PayloadBytes(payloads [][]byte, limit int) (int, error) {
	return payloadBytes(payloads, limit)
}

// Publish exposes publish for testing.
func Publish(tmpName, final string) error {
	return publish(tmpName, final)
}
