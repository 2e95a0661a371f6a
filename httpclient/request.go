package httpclient

// Request describes an outbound HTTP request.
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is already absolute.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is sent as-is for []byte and string, JSON-encoded otherwise.
	Body any
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
