package bridge

// Reply is the outcome of a tool handler: human-readable text plus the ad hoc fields some
// handlers attach (success, taskId, ...). Dispatchers deliver Text as a single text content
// item and Fields as structured content.
type Reply struct {
	Text   string
	Fields map[string]interface{}
}

// Ok returns a plain text reply.
func Ok(text string) Reply {
	return Reply{Text: text}
}

// Failed returns a reply flagged with success=false. Used for recovered lookup misses.
func Failed(text string) Reply {
	return Reply{Text: text, Fields: map[string]interface{}{"success": false}}
}

// With returns a copy of r carrying key=value in Fields.
func (r Reply) With(key string, value interface{}) Reply {
	fields := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[key] = value
	r.Fields = fields
	return r
}

// Succeeded is false only when the handler explicitly reported success=false.
func (r Reply) Succeeded() bool {
	if ok, found := r.Fields["success"].(bool); found {
		return ok
	}
	return true
}
