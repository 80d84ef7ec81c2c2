// Package generate converts extracted API call records into replayable
// artifacts: curl command lines, raw HTTP request dumps, and Postman
// Collection v2.1 documents.
package generate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/apisift/apisift-go/internal/model"
)

// Format identifies an output artifact type
type Format string

const (
	FormatCurl    Format = "curl"
	FormatPostman Format = "postman"
	FormatHTTP    Format = "http"
)

// SupportedFormats lists the valid output formats
var SupportedFormats = []Format{FormatCurl, FormatPostman, FormatHTTP}

// IsValidFormat checks if the given format is supported
func IsValidFormat(f string) bool {
	for _, valid := range SupportedFormats {
		if Format(f) == valid {
			return true
		}
	}
	return false
}

// Curl renders each call as a curl command line
func Curl(calls []model.ApiCall) []string {
	outputs := make([]string, len(calls))
	for i, call := range calls {
		outputs[i] = call.ToCurl()
	}
	return outputs
}

// HTTPDump renders each call as a raw HTTP request: request line, one
// header per line, then a blank line and the body when present.
func HTTPDump(calls []model.ApiCall) []string {
	outputs := make([]string, len(calls))
	for i, call := range calls {
		var lines []string

		lines = append(lines, fmt.Sprintf("%s %s HTTP/1.1", call.Method, call.FullURL()))

		for key, value := range call.Headers {
			lines = append(lines, fmt.Sprintf("%s: %s", key, value))
		}

		if call.Body != nil {
			lines = append(lines, "")
			lines = append(lines, bodyText(call.Body))
		}

		outputs[i] = strings.Join(lines, "\n")
	}
	return outputs
}

// bodyText renders a request body for a dump or collection: structured
// bodies as indented JSON, everything else verbatim.
func bodyText(body any) string {
	if s, ok := body.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(data)
}

// postmanSchema is the Collection v2.1 schema identifier
const postmanSchema = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman Collection v2.1 document
type Collection struct {
	Info  CollectionInfo   `json:"info"`
	Items []CollectionItem `json:"item"`
}

// CollectionInfo describes the collection
type CollectionInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// CollectionItem is a single named request in a collection
type CollectionItem struct {
	Name    string  `json:"name"`
	Request Request `json:"request"`
}

// Request is a Postman request object
type Request struct {
	Method string       `json:"method"`
	Header []KeyValue   `json:"header"`
	URL    RequestURL   `json:"url"`
	Body   *RequestBody `json:"body,omitempty"`
}

// KeyValue is a Postman key/value pair
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RequestURL is a Postman structured URL
type RequestURL struct {
	Raw      string     `json:"raw"`
	Protocol string     `json:"protocol"`
	Host     []string   `json:"host"`
	Path     []string   `json:"path"`
	Query    []KeyValue `json:"query,omitempty"`
}

// RequestBody is a Postman raw request body
type RequestBody struct {
	Mode    string       `json:"mode"`
	Raw     string       `json:"raw"`
	Options *BodyOptions `json:"options,omitempty"`
}

// BodyOptions carries the body language hint
type BodyOptions struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

// NewCollection builds a Postman Collection v2.1 from the given calls.
// Each call becomes one item named after its source, falling back to
// "METHOD path".
func NewCollection(calls []model.ApiCall, name string) *Collection {
	if name == "" {
		name = "API Collection"
	}

	items := make([]CollectionItem, 0, len(calls))
	for _, call := range calls {
		requestName := call.Source
		if requestName == "" {
			requestName = call.Summary()
		}

		items = append(items, CollectionItem{
			Name:    requestName,
			Request: newRequest(call),
		})
	}

	return &Collection{
		Info:  CollectionInfo{Name: name, Schema: postmanSchema},
		Items: items,
	}
}

func newRequest(call model.ApiCall) Request {
	protocol := "http"
	if strings.Contains(call.BaseURL, "https") {
		protocol = "https"
	}

	url := RequestURL{
		Raw:      call.FullURL(),
		Protocol: protocol,
		Host:     []string{},
		Path:     splitPath(call.Path),
	}

	if call.BaseURL != "" {
		host := strings.TrimPrefix(call.BaseURL, "https://")
		host = strings.TrimPrefix(host, "http://")
		url.Host = strings.Split(host, ".")
	}

	for key, value := range call.QueryParams {
		url.Query = append(url.Query, KeyValue{Key: key, Value: value})
	}

	headers := make([]KeyValue, 0, len(call.Headers))
	for key, value := range call.Headers {
		headers = append(headers, KeyValue{Key: key, Value: value})
	}

	request := Request{
		Method: string(call.Method),
		Header: headers,
		URL:    url,
	}

	if call.Body != nil {
		request.Body = newRequestBody(call.Body)
	}

	return request
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

func newRequestBody(body any) *RequestBody {
	if s, ok := body.(string); ok {
		return &RequestBody{Mode: "raw", Raw: s}
	}

	rb := &RequestBody{
		Mode:    "raw",
		Raw:     bodyText(body),
		Options: &BodyOptions{},
	}
	rb.Options.Raw.Language = "json"
	return rb
}

// WriteCollection saves a collection as indented JSON
func WriteCollection(collection *Collection, path string) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}

	return nil
}
