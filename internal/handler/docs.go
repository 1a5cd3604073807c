package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
)

const (
	docsPath    = "/docs"
	docsFile    = "/docs/openapi.yaml"
	docsMIME    = "application/yaml"
	docsUIAsset = "https://unpkg.com/swagger-ui-dist@5"
)

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Movie Manager API</title>
<link rel="stylesheet" href="%[1]s/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="%[1]s/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: %[2]q, dom_id: "#swagger-ui", deepLinking: true});
</script>
</body>
</html>`

// RegisterDocs serves the OpenAPI document at /docs/openapi.yaml and a
// Swagger UI for it at /docs. The old /swagger paths redirect there.
func RegisterDocs(r fiber.Router, doc []byte) {
	page := fmt.Sprintf(docsPage, docsUIAsset, docsFile)

	r.Get(docsFile, func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, docsMIME)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(doc)
	})
	r.Get(docsPath, func(c fiber.Ctx) error {
		c.Type("html")
		return c.SendString(page)
	})
	r.Get("/swagger/*", func(c fiber.Ctx) error {
		return c.Redirect().Status(fiber.StatusMovedPermanently).To(docsPath)
	})
}
