package extraction

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockModel is a mock implementation of ModelClient
type mockModel struct {
	response string
	err      error
	calls    int
}

func (m *mockModel) Generate(ctx context.Context, instruction string, pngImage []byte) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockModel) Close() error { return nil }

// mockRecognizer is a mock implementation of ocr.Recognizer
type mockRecognizer struct {
	text  string
	err   error
	calls int
}

func (m *mockRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockRecognizer) Close() error { return nil }

var _ = Describe("Orchestrator", func() {
	var (
		model          *mockModel
		recognizer     *mockRecognizer
		orchestrator   *Orchestrator
		category       Category
		skipValidation bool
		result         *ExtractionResult
		err            error
	)

	image := []byte("fake png bytes")

	BeforeEach(func() {
		model = &mockModel{}
		recognizer = &mockRecognizer{}
		category = CategorySingleAmount
		skipValidation = false
	})

	JustBeforeEach(func() {
		orchestrator = NewOrchestratorWithRetry(model, recognizer, DefaultScanConfig(), 3, time.Millisecond)
		result, err = orchestrator.Extract(context.Background(), image, "image/png", category, skipValidation)
	})

	When("validation is skipped", func() {
		BeforeEach(func() {
			skipValidation = true
			category = CategoryItemized
			model.response = `{"total_amount": 484.0, "items": [{"name": "Atta", "quantity": "5 kg x 1", "price": 327.0}]}`
			recognizer.text = "some unrelated text with ₹999"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should trust the generative amount at high confidence", func() {
			Expect(result.Confidence).To(Equal(ConfidenceHigh))
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("484.00"))
		})

		It("should never mark the amount corrected", func() {
			Expect(result.AmountCorrected).To(BeFalse())
			Expect(result.OriginalAmount).To(BeNil())
		})

		It("should keep the items from the model", func() {
			Expect(result.Items).To(HaveLen(1))
		})

		It("should retain the OCR capture as an audit trail", func() {
			Expect(result.OCRText).To(ContainSubstring("₹999"))
		})
	})

	When("validation is skipped and the OCR capture fails", func() {
		BeforeEach(func() {
			skipValidation = true
			model.response = `{"total_amount": 484.0}`
			recognizer.err = errors.New("tesseract exploded")
		})

		It("should still succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("484.00"))
			Expect(result.Confidence).To(Equal(ConfidenceHigh))
		})
	})

	When("the model and OCR agree exactly", func() {
		BeforeEach(func() {
			model.response = `{"total_amount": 94.0}`
			recognizer.text = "Auto fare\nTotal: ₹94\n12:45 PM\n2.3 km"
		})

		It("should confirm at high confidence, uncorrected", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Confidence).To(Equal(ConfidenceHigh))
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("94.00"))
			Expect(result.AmountCorrected).To(BeFalse())
		})
	})

	When("the OCR amount is close but not identical", func() {
		BeforeEach(func() {
			model.response = `{"total_amount": 100.0}`
			recognizer.text = "Total ₹97"
		})

		It("should correct to the OCR value", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("97.00"))
			Expect(result.Confidence).To(Equal(ConfidenceMedium))
		})

		It("should record the correction and the original amount", func() {
			Expect(result.AmountCorrected).To(BeTrue())
			Expect(result.OriginalAmount).NotTo(BeNil())
			Expect(result.OriginalAmount.StringFixed(2)).To(Equal("100.00"))
		})
	})

	When("the model and OCR disagree badly", func() {
		BeforeEach(func() {
			model.response = `{"total_amount": 100.0}`
			recognizer.text = "Paid ₹40"
		})

		It("should resolve to the OCR amount at low confidence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("40.00"))
			Expect(result.Confidence).To(Equal(ConfidenceLow))
			Expect(result.AmountCorrected).To(BeTrue())
		})
	})

	When("OCR fails during validation", func() {
		BeforeEach(func() {
			model.response = `{"total_amount": 150.0}`
			recognizer.err = errors.New("ocr unavailable")
		})

		It("should trust the model at medium confidence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("150.00"))
			Expect(result.Confidence).To(Equal(ConfidenceMedium))
		})
	})

	When("the model fails with a transport error", func() {
		BeforeEach(func() {
			model.err = errors.New("connection reset")
			recognizer.text = "Auto fare\nTotal: ₹94"
		})

		It("should retry the model before falling back", func() {
			Expect(model.calls).To(Equal(3))
		})

		It("should fall back to the OCR heuristics", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("94.00"))
			Expect(result.Confidence).To(Equal(ConfidenceMedium))
		})
	})

	When("the model returns garbage", func() {
		BeforeEach(func() {
			model.response = "I am not JSON"
			recognizer.text = "Total ₹250"
		})

		It("should not retry a deterministic parse failure", func() {
			Expect(model.calls).To(Equal(1))
		})

		It("should fall back to the OCR heuristics", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("250.00"))
		})
	})

	When("the fallback parses an itemized receipt", func() {
		BeforeEach(func() {
			category = CategoryItemized
			model.err = errors.New("model down")
			recognizer.text = "Order Summary\n1 x Masala Dosa ₹120\nItem Total ₹120"
		})

		It("should include heuristic items", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Masala Dosa"))
		})
	})

	When("both paths fail", func() {
		BeforeEach(func() {
			model.err = errors.New("model down")
			recognizer.err = errors.New("ocr down")
		})

		It("should report that no amount is determinable", func() {
			Expect(errors.Is(err, ErrNoAmountDeterminable)).To(BeTrue())
			Expect(result).To(BeNil())
		})
	})

	When("the model fails and OCR finds no candidates", func() {
		BeforeEach(func() {
			model.err = errors.New("model down")
			recognizer.text = "Thank you for your visit"
		})

		It("should report that no amount is determinable", func() {
			Expect(errors.Is(err, ErrNoAmountDeterminable)).To(BeTrue())
		})
	})

	When("the resolved amount falls outside the plausible range", func() {
		BeforeEach(func() {
			skipValidation = true
			model.response = `{"total_amount": 75000.0}`
		})

		It("should force confidence down to low", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("75000.00"))
			Expect(result.Confidence).To(Equal(ConfidenceLow))
		})
	})
})
