package conversation

import (
	"regexp"
	"strings"
)

// Contact is a customer's name and phone number.
type Contact struct {
	Name  string
	Phone string
}

// contactPatterns accept "name - phone", "name, phone" and "name phone".
var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s*[-,]\s*(\d{9,11})$`),
	regexp.MustCompile(`^(.+?)\s+(\d{9,11})$`),
}

// ParseContact extracts a name and a 9 to 11 digit phone number.
func ParseContact(text string) (Contact, bool) {
	text = strings.TrimSpace(text)
	for _, re := range contactPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		return Contact{Name: name, Phone: m[2]}, true
	}
	return Contact{}, false
}
