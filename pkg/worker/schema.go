package worker

import "github.com/santhosh-tekuri/jsonschema/v5"

const responseSchemaURL = "https://connectable.local/schemas/grading-response.json"

const responseSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "submissionId": {"type": ["string", "null"]},
    "success": {"type": ["boolean", "null"]},
    "errorMessage": {"type": ["string", "null"]},
    "results": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["taskName", "isPassed"],
        "properties": {
          "taskName": {"type": "string"},
          "isPassed": {"type": "boolean"}
        }
      }
    }
  }
}`

var responseSchema = jsonschema.MustCompileString(responseSchemaURL, responseSchemaJSON)
