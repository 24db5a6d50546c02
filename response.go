package authgate

import (
	"encoding/json"
	"net/http"
)

// Response renders itself to an http.ResponseWriter. Handlers return a
// Response; the pipeline decides when (and whether) to render it.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   any
}

// JSON returns a response rendering body as application/json with the
// given status code. A nil body renders the JSON literal null.
func JSON(status int, body any) Response {
	return jsonResponse{status: status, body: body}
}

func (resp jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.status)
	return json.NewEncoder(w).Encode(resp.body)
}

type redirectResponse struct {
	url    string
	status int
}

// Redirect returns a 302 redirect to url. The pipeline vets the target
// against the trusted-origin guard before rendering; untrusted targets
// become 403 responses.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusFound}
}

func (resp redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, resp.url, resp.status)
	return nil
}

type externalRedirectResponse struct {
	url string
}

// externalRedirect renders a redirect that deliberately skips the
// trusted-origin guard. Only for destinations the engine itself built,
// such as provider authorization URLs.
func externalRedirect(url string) Response {
	return externalRedirectResponse{url: url}
}

func (resp externalRedirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, resp.url, http.StatusFound)
	return nil
}

type noContentResponse struct{}

// NoContent returns an empty 204 response.
func NoContent() Response {
	return noContentResponse{}
}

func (noContentResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// redirectTarget extracts the destination from a redirect response so
// the pipeline can vet it.
func redirectTarget(resp Response) (string, bool) {
	rd, ok := resp.(redirectResponse)
	if !ok {
		return "", false
	}
	return rd.url, true
}
