package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
	"github.com/MrSnakeDoc/hubfeed/internal/logger"
)

type licenseResponse struct {
	Data domain.LicenseDetail `json:"data"`
}

// FetchLicenseDetail returns a license description. The caller IP is
// forwarded so the API can apply its geo and rate-limit rules to the real
// visitor. It never fails: any error is logged and the empty LicenseDetail
// is returned.
func (c *Client) FetchLicenseDetail(ctx context.Context, licenseID, callerIP string) domain.LicenseDetail {
	detail, err := c.fetchLicense(ctx, licenseID, callerIP)
	if err != nil {
		c.logger.Warn("license lookup failed, rendering fallback",
			logger.String("license_id", licenseID),
			logger.Error(err))
		return domain.LicenseDetail{}
	}
	return detail
}

func (c *Client) fetchLicense(ctx context.Context, licenseID, callerIP string) (domain.LicenseDetail, error) {
	header := http.Header{}
	if callerIP != "" {
		header.Set("X-Real-IP", callerIP)
		header.Set("X-Forwarded-For", callerIP)
	}

	var resp licenseResponse
	err := c.do(ctx, call{
		endpoint: "license",
		method:   http.MethodGet,
		path:     "/license/" + url.PathEscape(licenseID),
		header:   header,
	}, &resp)
	if err != nil {
		return domain.LicenseDetail{}, fmt.Errorf("fetch license %s: %w", licenseID, err)
	}
	return resp.Data, nil
}
