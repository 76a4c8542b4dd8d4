package relink

// SentinelVersion is the version reported for release strings that carry
// no leading numeric token. It is lower than any real threshold, so every
// gate selects its legacy variant.
const SentinelVersion = 0

// ResolveVersion extracts the major version from a host release string:
// the leading run of decimal digits ("18.2.1" resolves to 18). Release
// strings that predate the numbering scheme ("R16B03") resolve to
// SentinelVersion. Never fails; an unparseable release is a meaningful
// result, not an error.
func ResolveVersion(release string) int {
	n := 0
	i := 0
	for i < len(release) && release[i] >= '0' && release[i] <= '9' {
		digit := int(release[i] - '0')
		if n > (1<<31-1-digit)/10 {
			// Absurdly large token; treat like an unparseable release.
			return SentinelVersion
		}
		n = n*10 + digit
		i++
	}
	if i == 0 {
		return SentinelVersion
	}
	return n
}
