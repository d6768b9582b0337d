package msg

// Keepalive carries no body; its framing (header only, length 19) is the
// signal.
type Keepalive struct{}

func (Keepalive) Pack() []byte {
	return PackHeader(TypeKeepalive, 0)
}

func UnpackKeepalive(body []byte, offset int) (Keepalive, error) {
	if len(body) != 0 {
		return Keepalive{}, badFormat(offset, "keepalive message must have an empty body")
	}
	return Keepalive{}, nil
}
