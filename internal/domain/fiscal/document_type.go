package fiscal

import (
	"fmt"

	"github.com/erp/settlement/internal/domain/shared"
)

// DocumentType is the two-digit code of a fiscal document type
type DocumentType string

const (
	// DocumentTypeCreditFiscal is issued to businesses that claim tax credit
	DocumentTypeCreditFiscal DocumentType = "01"
	// DocumentTypeFinalConsumer is issued to final consumers
	DocumentTypeFinalConsumer DocumentType = "02"
	// DocumentTypeSpecialRegime is issued under special tax regimes
	DocumentTypeSpecialRegime DocumentType = "14"
	// DocumentTypeGovernmental is issued to government bodies
	DocumentTypeGovernmental DocumentType = "15"
)

// IsValid checks if the document type is a known code
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeCreditFiscal, DocumentTypeFinalConsumer,
		DocumentTypeSpecialRegime, DocumentTypeGovernmental:
		return true
	}
	return false
}

// String returns the code
func (t DocumentType) String() string {
	return string(t)
}

// ParseDocumentType validates a raw code
func ParseDocumentType(code string) (DocumentType, error) {
	t := DocumentType(code)
	if !t.IsValid() {
		return "", shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown fiscal document type %q", code))
	}
	return t, nil
}
