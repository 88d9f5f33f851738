// Package predictor implements HTTP clients for external object detection
// APIs. Each client satisfies the tiling package's PredictFunc contract via
// its Predict method, so the tiling core stays oblivious to transport
// details, upload formats, and authentication.
//
// Two upload formats are supported, matching the deployed prediction
// services:
//
//   - FormDataClient uploads the image as multipart/form-data with optional
//     extra form fields.
//   - BinaryClient posts the raw image bytes as application/octet-stream
//     against an endpoint path, with parameters in the query string.
//
// Authentication is pluggable through the Auth interface: a static bearer
// API key, or an IAM password-grant token exchange with in-memory token
// caching.
//
// All responses are parsed into the canonical annotation model; detection
// coordinates in a response are local to whatever region was uploaded.
package predictor
