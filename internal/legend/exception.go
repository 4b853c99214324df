package legend

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Exception codes used by this service.
const (
	CodeMapNotDefined   = "MapNotDefined"
	CodeLayerNotDefined = "LayerNotDefined"
)

// ExceptionContentType is the media type of exception documents.
const ExceptionContentType = "text/xml; charset=utf-8"

// serviceException renders a WMS 1.3.0 ServiceExceptionReport. It is
// returned with a success HTTP status per the WMS convention.
func serviceException(code, message string) *Result {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<ServiceExceptionReport version=\"1.3.0\">\n")
	fmt.Fprintf(&buf, " <ServiceException code=\"%s\">", code)
	_ = xml.EscapeText(&buf, []byte(message))
	fmt.Fprintf(&buf, "</ServiceException>\n</ServiceExceptionReport>")
	return &Result{Data: buf.Bytes(), ContentType: ExceptionContentType}
}
