package wire

import "strings"

const (
	joinedMarker = " has joined"
	leftMarker   = " has left"
)

func JoinedContent(username string) string { return username + joinedMarker }
func LeftContent(username string) string   { return username + leftMarker }

// parsePresence extracts the subject of a legacy system notice. The marker
// that appears last wins, so "a has joined b has left" is a left notice for
// "a has joined b". Trailing text such as " the lobby" is tolerated.
func parsePresence(content string) (Kind, string, bool) {
	j := strings.LastIndex(content, joinedMarker)
	l := strings.LastIndex(content, leftMarker)

	switch {
	case j > 0 && j > l:
		return KindJoined, content[:j], true
	case l > 0:
		return KindLeft, content[:l], true
	default:
		return "", "", false
	}
}
