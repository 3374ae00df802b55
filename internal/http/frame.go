package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Manifest describes the frame published at /.well-known/farcaster.json.
// Header, Payload and Signature form the signed account association.
type Manifest struct {
	BaseURL   string
	Name      string
	IconURL   string
	ImageURL  string
	Header    string
	Payload   string
	Signature string
}

const (
	splashBackground = "#12141d"
	buttonTitle      = "Check My Score"
)

const frameTemplate = `<!DOCTYPE html>
<html>
<head>
<meta property="fc:frame" content="vNext" />
<meta property="fc:frame:image" content="{{.Image}}" />
<meta property="fc:frame:button:1" content="Open App" />
<meta property="fc:frame:button:1:action" content="link" />
<meta property="fc:frame:button:1:target" content="{{.Target}}" />
</head>
</html>
`

type frameAction struct {
	UntrustedData struct {
		FID         int64 `json:"fid"`
		ButtonIndex int   `json:"buttonIndex"`
	} `json:"untrustedData"`
}

// baseURL prefers the configured value and falls back to the request host.
func (h *Handler) baseURL(c *gin.Context) string {
	if base := strings.TrimRight(h.manifest.BaseURL, "/"); base != "" {
		return base
	}
	scheme := "https"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) assetURL(base, configured string) string {
	if configured != "" {
		return configured
	}
	return base + "/logo.png"
}

func (h *Handler) farcasterManifest(c *gin.Context) {
	base := h.baseURL(c)
	icon := h.assetURL(base, h.manifest.IconURL)
	image := h.assetURL(base, h.manifest.ImageURL)

	c.JSON(http.StatusOK, gin.H{
		"accountAssociation": gin.H{
			"header":    h.manifest.Header,
			"payload":   h.manifest.Payload,
			"signature": h.manifest.Signature,
		},
		"frame": gin.H{
			"version":               "1",
			"name":                  h.manifest.Name,
			"iconUrl":               icon,
			"homeUrl":               base,
			"imageUrl":              image,
			"buttonTitle":           buttonTitle,
			"splashImageUrl":        icon,
			"splashBackgroundColor": splashBackground,
			"webhookUrl":            base + "/api/webhook",
		},
	})
}

func (h *Handler) webhook(c *gin.Context) {
	var event map[string]any
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.requestLogger(c).WithField("event", event).Info("frame webhook received")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) frameAction(c *gin.Context) {
	var action frameAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Frame error"})
		return
	}
	h.requestLogger(c).WithFields(logrus.Fields{
		"fid":          action.UntrustedData.FID,
		"button_index": action.UntrustedData.ButtonIndex,
	}).Info("frame action received")

	base := h.baseURL(c)
	c.HTML(http.StatusOK, "frame", gin.H{
		"Image":  h.assetURL(base, h.manifest.ImageURL),
		"Target": base,
	})
}
