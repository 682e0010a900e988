package normalize

import "github.com/xeipuuv/gojsonschema"

// recordSchema is the minimal contract the staging layer guarantees:
// every staged record carries a store-scoped app_id and the listing url.
// Everything beyond that is best-effort and handled by Normalize.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["app_id", "url"],
  "properties": {
    "app_id": {"type": ["string", "integer"]},
    "url": {"type": "string", "minLength": 1},
    "store": {"type": "string"},
    "title": {"type": "string"},
    "name": {"type": "string"},
    "release": {"type": "string"},
    "release_date": {"type": "string"},
    "description": {"type": ["string", "null"]},
    "is_free": {"type": "boolean"},
    "currency": {"type": "string"},
    "image_url": {"type": "string"},
    "genres": {"type": ["array", "string", "null"]},
    "developers": {"type": ["array", "string", "null"]},
    "publishers": {"type": ["array", "string", "null"]}
  }
}`

var recordSchemaLoader = gojsonschema.NewStringLoader(recordSchema)
