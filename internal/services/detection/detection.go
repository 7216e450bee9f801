package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// Client talks to the external person-detection service. The engine treats
// every failure here as "zero detections this frame", never as fatal.
type Client struct {
	URL  string
	http *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{URL: baseURL, http: http.DefaultClient}
}

type predictResponse struct {
	Detections []models.RawDetection `json:"detections"`
}

// Detect sends one JPEG frame to /predict and returns the people found in it,
// each with a pixel position, bounding box, score and an optional face
// feature vector when a face was close enough to encode.
func (c *Client) Detect(frame []byte, cameraID string) ([]models.RawDetection, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}

	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}

	if err := writer.WriteField("camera_id", cameraID); err != nil {
		return nil, fmt.Errorf("write camera field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequest("POST", c.URL+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, bodyBytes)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return parsed.Detections, nil
}
