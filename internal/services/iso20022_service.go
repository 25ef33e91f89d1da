package services

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/intlpay/backend/internal/models"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
)

const (
	MessagePacs008 = "pacs.008.001.08"
	MessagePacs002 = "pacs.002.001.08"
)

// ISO20022Service renders reviewed transfers as ISO 20022 interbank messages.
// Nothing is sent anywhere.
type ISO20022Service struct {
	debtorAgentBIC string
	now            func() time.Time
}

func NewISO20022Service(debtorAgentBIC string) *ISO20022Service {
	return &ISO20022Service{
		debtorAgentBIC: debtorAgentBIC,
		now:            time.Now,
	}
}

// Document is a rendered message ready to be returned to a client.
type Document struct {
	TransactionID string `json:"transactionId"`
	MessageType   string `json:"messageType"`
	XML           string `json:"xml"`
}

// Render produces a pacs.008 credit transfer for approved transactions and a
// pacs.002 status report otherwise.
func (iso *ISO20022Service) Render(tx *models.Transaction) (*Document, error) {
	var (
		doc         interface{}
		messageType string
		err         error
	)
	if tx.Status == models.StatusApproved {
		doc, err = iso.CreatePacs008(tx)
		messageType = MessagePacs008
	} else {
		doc, err = iso.CreatePacs002(tx)
		messageType = MessagePacs002
	}
	if err != nil {
		return nil, err
	}

	xmlData, err := iso.ConvertToXML(doc)
	if err != nil {
		return nil, err
	}
	return &Document{TransactionID: tx.ID, MessageType: messageType, XML: xmlData}, nil
}

// messageRef strips the dashes so a UUID fits a Max35Text.
func messageRef(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
func (iso *ISO20022Service) CreatePacs008(tx *models.Transaction) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if tx.Status != models.StatusApproved {
		return nil, ErrNotSettled
	}

	msgId := messageRef(uuid.NewString())
	creDtTm := iso.now().UTC()
	settlementDate := creDtTm
	if tx.ReviewedAt != nil {
		settlementDate = tx.ReviewedAt.UTC()
	}

	amount := pacs_v08.ActiveCurrencyAndAmount{
		Ccy:   common.ActiveCurrencyCode(tx.Currency),
		Value: tx.Amount.InexactFloat64(),
	}
	ref := common.Max35Text(messageRef(tx.ID))
	debtor := tx.CustomerID
	if tx.Customer != nil && tx.Customer.Name != "" {
		debtor = tx.Customer.Name
	}

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:             common.Max35Text(msgId),
			CreDtTm:           common.ISODateTime(creDtTm),
			NbOfTxs:           "1",
			TtlIntrBkSttlmAmt: &amount,
			IntrBkSttlmDt:     (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &ref,
					EndToEndId: ref,
					TxId:       &ref,
				},
				IntrBkSttlmAmt: amount,
				IntrBkSttlmDt:  (*common.ISODate)(&settlementDate),
				ChrgBr:         "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(iso.debtorAgentBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(debtor)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(tx.SwiftCode)}[0],
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(tx.RecipientName)}[0],
				},
			},
		},
	}

	return doc, nil
}

// StatusCode maps a review status onto an ExternalPaymentTransactionStatus1Code.
func StatusCode(status models.Status) string {
	switch status {
	case models.StatusApproved:
		return "ACCP"
	case models.StatusRejected:
		return "RJCT"
	default:
		return "PDNG"
	}
}

// CreatePacs002 creates a pacs.002 payment status report
func (iso *ISO20022Service) CreatePacs002(tx *models.Transaction) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := messageRef(uuid.NewString())
	creDtTm := iso.now().UTC()
	ref := common.Max35Text(messageRef(tx.ID))

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &ref,
				OrgnlEndToEndId: &ref,
				OrgnlTxId:       &ref,
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(StatusCode(tx.Status))}[0],
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts ISO20022 document to XML string
func (iso *ISO20022Service) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
