package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"nexto/models"
)

type createTaskIn struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Completed   *bool  `json:"completed"`
}

func (in createTaskIn) toInput() (models.TaskInput, error) {
	out := models.TaskInput{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
	}
	if in.Priority != "" {
		p, err := models.ParsePriority(in.Priority)
		if err != nil {
			return models.TaskInput{}, err
		}
		out.Priority = &p
	}
	if in.DueDate != "" {
		d, err := models.ParseDate(in.DueDate)
		if err != nil {
			return models.TaskInput{}, err
		}
		out.DueDate = &d
	}
	return out, nil
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func invalidField(field, want string) error {
	return &models.ValidationError{Field: field, Message: fmt.Sprintf("%s must be %s", field, want)}
}

// decodePatch turns a PUT body into a TaskPatch. Only keys present in the
// body are applied; a null description or dueDate clears it. id, createdAt
// and updatedAt are ignored.
func decodePatch(body map[string]json.RawMessage) (models.TaskPatch, error) {
	var patch models.TaskPatch

	if raw, ok := body["title"]; ok {
		var title string
		if isNull(raw) || json.Unmarshal(raw, &title) != nil {
			return patch, invalidField("title", "a non-empty string")
		}
		patch.Title = &title
	}

	if raw, ok := body["description"]; ok {
		var desc string
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &desc); err != nil {
				return patch, invalidField("description", "a string")
			}
		}
		patch.Description = &desc
	}

	if raw, ok := body["completed"]; ok {
		var completed bool
		if isNull(raw) || json.Unmarshal(raw, &completed) != nil {
			return patch, invalidField("completed", "a boolean")
		}
		patch.Completed = &completed
	}

	if raw, ok := body["priority"]; ok {
		var s string
		if isNull(raw) || json.Unmarshal(raw, &s) != nil {
			return patch, invalidField("priority", "one of low, medium, high")
		}
		p, err := models.ParsePriority(s)
		if err != nil {
			return patch, err
		}
		patch.Priority = &p
	}

	if raw, ok := body["dueDate"]; ok {
		var s string
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &s); err != nil {
				return patch, invalidField("dueDate", "a YYYY-MM-DD string")
			}
		}
		if s == "" {
			patch.ClearDueDate = true
		} else {
			d, err := models.ParseDate(s)
			if err != nil {
				return patch, err
			}
			patch.DueDate = &d
		}
	}

	return patch, nil
}
