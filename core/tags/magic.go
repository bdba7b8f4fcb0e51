package tags

// MagicToString renders a group magic as its four characters, most significant
// byte first. The null magic renders as "".
func MagicToString(magic uint32) string {
	if magic == NullMagic {
		return ""
	}
	b := []byte{byte(magic >> 24), byte(magic >> 16), byte(magic >> 8), byte(magic)}
	return string(b)
}

// StringToMagic packs up to four characters into a group magic. Short names
// are padded with spaces. The empty string maps to the null magic.
func StringToMagic(s string) uint32 {
	if s == "" {
		return NullMagic
	}
	var magic uint32
	for i := 0; i < 4; i++ {
		c := byte(' ')
		if i < len(s) {
			c = s[i]
		}
		magic = magic<<8 | uint32(c)
	}
	return magic
}
