package middleware

// errorEnvelope mirrors the lookup result envelope so clients see one shape
// for every failure, including those raised before a handler runs.
func errorEnvelope(msg string) map[string]interface{} {
	return map[string]interface{}{
		"success": false,
		"data":    nil,
		"error":   msg,
		"cached":  false,
	}
}
