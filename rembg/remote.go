package rembg

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/util"
	nhttp "github.com/chaos-io/cutout/util/http"
)

const (
	loadPath    = "api/models/"
	segmentPath = "api/segment"

	// 推理输入最长边
	DefaultMaxSide = 1024
)

// RemoteBackend 通过 HTTP 调用分割推理服务
type RemoteBackend struct {
	baseURL string
	maxSide int
	timeout time.Duration
	cli     nhttp.IClient
}

func NewRemoteBackend(baseURL string, timeout time.Duration) *RemoteBackend {
	return newRemoteBackend(baseURL, timeout, nhttp.NewHTTPClient())
}

func newRemoteBackend(baseURL string, timeout time.Duration, cli nhttp.IClient) *RemoteBackend {
	return &RemoteBackend{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		maxSide: DefaultMaxSide,
		timeout: timeout,
		cli:     cli,
	}
}

type loadResp struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

/*
	curl "$BASE_URL/api/models/isnet-general-use"

{"name": "isnet-general-use", "ready": true}
*/
func (b *RemoteBackend) Load(ctx context.Context, variant string) error {
	resp := &loadResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + loadPath + url.PathEscape(variant),
		Method:     "GET",
		Response:   resp,
		Timeout:    b.timeout,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	if !resp.Ready {
		return fmt.Errorf("model %s is not ready", variant)
	}
	return nil
}

/*
	curl -X POST "$BASE_URL/api/segment" \
	  -F "image=@my_image.png" \
	  -F "model=isnet-general-use" --output mask.png
*/
func (b *RemoteBackend) Predict(ctx context.Context, variant string, img *matting.PixelBuffer) (*matting.Mask, error) {
	input := resizeWithinMax(img.Image(), b.maxSide)
	imgBytes, err := util.EncodePNG(input)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(imgBytes); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	_ = writer.WriteField("model", variant)
	_ = writer.Close()

	var raw []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + segmentPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &raw,
		Timeout:    b.timeout,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	maskImg, err := util.DecodeImage(raw)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	return MaskFromImage(maskImg), nil
}
