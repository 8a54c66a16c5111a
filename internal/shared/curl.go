// Utilities for extracting login cookies from cURL commands.
//
// Cookie-based backends have no public OAuth flow; the practical way to
// obtain a session is "copy as cURL" from the browser's network inspector.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// CurlCredential represents headers and cookies parsed from a cURL command.
type CurlCredential struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a file containing a cURL command and extracts headers and cookies.
func ParseCurlFile(path string) (*CurlCredential, error) {
	content, err := VerifyAndReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseCurlCommand(content)
}

var (
	headerRe = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// ParseCurlCommand parses a cURL command string and extracts headers and cookies.
//
// Cookies may arrive either through a Cookie header or a -b/--cookie flag.
func ParseCurlCommand(data []byte) (*CurlCredential, error) {
	curlCmd := strings.ReplaceAll(string(data), "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	cred := &CurlCredential{Headers: make(map[string]string)}

	for _, match := range headerRe.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if strings.EqualFold(key, "cookie") {
			cred.Cookie = value
		} else {
			cred.Headers[key] = value
		}
	}

	for _, match := range cookieRe.FindAllStringSubmatch(curlCmd, -1) {
		if match[1] != "" {
			cred.Cookie = match[1]
		} else if match[2] != "" {
			cred.Cookie = match[2]
		}
	}

	if cred.Cookie == "" && len(cred.Headers) == 0 {
		return nil, fmt.Errorf("%w: no headers or cookies found in cURL command", ErrInvalidInput)
	}

	return cred, nil
}

// CookieMap splits the cookie string into name/value pairs.
func (c *CurlCredential) CookieMap() map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(c.Cookie, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			cookies[kv[0]] = kv[1]
		}
	}
	return cookies
}
