package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"mediaCompressor/api/dto"
)

var validate = validator.New()

// ParseOptions reads the kind-specific option fields out of a parsed
// multipart form. List fields are JSON-encoded arrays ("[80,60]"); malformed
// values are rejected rather than silently defaulted.
func ParseOptions(form url.Values) (*dto.CompressRequest, error) {
	req := &dto.CompressRequest{}

	var err error
	if req.Qualities, err = parseIntList(form, "qualities"); err != nil {
		return nil, err
	}
	if req.Bitrates, err = parseIntList(form, "bitrates"); err != nil {
		return nil, err
	}
	if req.ThumbnailSizes, err = parseIntList(form, "thumbnailSizes"); err != nil {
		return nil, err
	}
	if req.SampleRates, err = parseIntList(form, "sampleRates"); err != nil {
		return nil, err
	}

	if v := form.Get("thumbnailCount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: thumbnailCount: %s", ErrInvalidOptions, v)
		}
		req.ThumbnailCount = n
	}

	req.Format = form.Get("format")

	if v := form.Get("stripMetadata"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: stripMetadata: %s", ErrInvalidOptions, v)
		}
		req.StripMetadata = &b
	}

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	return req, nil
}

func parseIntList(form url.Values, field string) ([]int, error) {
	v := form.Get(field)
	if v == "" {
		return nil, nil
	}

	var out []int
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("%w: %s must be a JSON array of integers", ErrInvalidOptions, field)
	}
	return out, nil
}
