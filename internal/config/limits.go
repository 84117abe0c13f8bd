package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectNameLength = 255

	// MaxProjectDescriptionLength bounds the free-form project description.
	MaxProjectDescriptionLength = 5000

	// MaxDocumentTitleLength is the maximum length for document titles.
	MaxDocumentTitleLength = 255

	// MaxDocumentContentLength is the maximum size (in bytes) of a planning
	// document body. Nine steps of this size still fit comfortably in a
	// single conflict-analysis prompt.
	MaxDocumentContentLength = 200_000

	// MaxChatMessageLength is the maximum size (in bytes) of one chat message.
	MaxChatMessageLength = 20_000

	// MaxRejectReasonLength bounds the optional reason recorded on rejection.
	MaxRejectReasonLength = 2000

	// MaxRoleLabelLength bounds the free-form member role label.
	MaxRoleLabelLength = 100

	// MinWorkflowStep and MaxWorkflowStep delimit the fixed planning steps.
	MinWorkflowStep = 1
	MaxWorkflowStep = 9
)
