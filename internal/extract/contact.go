package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/storelens/internal/types"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d \-]{8,}\d`)
)

func emptyContact() types.Contact {
	return types.Contact{Emails: []string{}, Phones: []string{}}
}

// Contact follows the first contact link on the home page and mines its
// text for emails, phone numbers, address and return information.
func (e *Extractor) Contact(ctx context.Context, baseURL string) Result[types.Contact] {
	list, err := e.homeAnchors(ctx, baseURL)
	if err != nil {
		return Empty(emptyContact(), err)
	}
	contactURL, ok := firstMatch(list, e.matchers.Contact, baseURL)
	if !ok {
		return Empty(emptyContact(), types.ErrNoCandidate)
	}

	resp, err := e.fetcher.Fetch(ctx, contactURL)
	if err != nil {
		return Empty(emptyContact(), err)
	}
	lines, err := textLines(resp.Body)
	if err != nil {
		return Empty(emptyContact(), &types.ParseError{URL: contactURL, Err: err})
	}
	return Found(parseContact(lines))
}

func parseContact(lines []string) types.Contact {
	text := strings.Join(lines, "\n")

	c := types.Contact{
		Emails: uniqueMatches(emailPattern.FindAllString(text, -1)),
		Phones: uniqueMatches(phonePattern.FindAllString(text, -1)),
	}
	c.Address = types.StringPtr(truncate(linesContaining(lines, "address"), MaxAddressLength))
	c.ReturnInfo = types.StringPtr(truncate(linesContaining(lines, "return", "refund"), MaxInfoLength))

	var other []string
	for _, line := range lines {
		if utf8.RuneCountInString(line) > otherInfoMinRune {
			other = append(other, line)
			if len(other) == otherInfoLines {
				break
			}
		}
	}
	c.OtherInfo = types.StringPtr(truncate(strings.Join(other, " "), MaxInfoLength))
	return c
}
