package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Pinata pins files to IPFS through the Pinata pinning API. The content address is
// the returned IPFS hash.
type Pinata struct {
	Client    HTTPClient
	URL       string
	APIKey    string
	SecretKey string
}

func NewPinata(client HTTPClient, url, apiKey, secretKey string) *Pinata {
	if client == nil {
		client = &http.Client{}
	}
	return &Pinata{Client: client, URL: url, APIKey: apiKey, SecretKey: secretKey}
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (p *Pinata) Store(ctx context.Context, data []byte, filename string) (string, error) {
	if p.APIKey == "" || p.SecretKey == "" {
		return "", errors.New("pinata credentials are not configured")
	}

	body, contentType, err := pinataForm(data, filename)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("pinata_api_key", p.APIKey)
	req.Header.Set("pinata_secret_api_key", p.SecretKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Error uploading file to pinata")
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Error reading pinata response body")
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		log.Error().Int("status", resp.StatusCode).Str("body", string(bodyBytes)).Msg("Pinata rejected upload")
		return "", fmt.Errorf("pinata upload failed with status %d", resp.StatusCode)
	}

	var pinned pinataResponse
	if err := json.Unmarshal(bodyBytes, &pinned); err != nil {
		log.Error().Err(err).Msg("Error unmarshalling pinata response body")
		return "", err
	}
	if pinned.IpfsHash == "" {
		return "", errors.New("pinata response has no IpfsHash")
	}

	log.Info().Str("hash", pinned.IpfsHash).Str("file", filename).Msg("File pinned to IPFS")
	return pinned.IpfsHash, nil
}

func pinataForm(data []byte, filename string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	metadata, err := json.Marshal(map[string]string{"name": filename})
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataMetadata", string(metadata)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("pinataOptions", `{"cidVersion":0}`); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
