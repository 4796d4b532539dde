package httpapi

import "strings"

func normalizeBasePath(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "/" {
		return ""
	}
	return path
}

// BaseURL joins a listen address and base path into the URL a client should use.
func BaseURL(addr, basePath string) string {
	host := strings.TrimSpace(addr)
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host + normalizeBasePath(basePath)
}
