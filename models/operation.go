package models

// Operation kinds. At most one operation of each kind runs at a time.
const (
	OpScanDuplicates       = "scan-duplicates"
	OpQuarantineDuplicates = "quarantine-duplicates"
	OpOrganizePreview      = "organize-preview"
	OpOrganize             = "organize"
	OpExtractCode          = "extract-code"
	OpAIPrep               = "ai-prep"
	OpSchemaClean          = "schema-clean"
)
