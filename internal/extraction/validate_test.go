package extraction

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validator", func() {
	var (
		validator  *Validator
		generative decimal.Decimal
		ocrText    string
		outcome    ValidationOutcome
	)

	BeforeEach(func() {
		validator = NewValidator(DefaultScanConfig())
		generative = decimal.NewFromFloat(100.00)
	})

	JustBeforeEach(func() {
		outcome = validator.Validate(generative, ocrText)
	})

	When("the OCR text is empty", func() {
		BeforeEach(func() {
			ocrText = "   "
		})

		It("should trust the generative amount at medium confidence", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceMedium))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("100.00"))
		})
	})

	When("a currency-marked OCR amount matches exactly", func() {
		BeforeEach(func() {
			ocrText = "Order paid\nTotal ₹100\nThank you"
		})

		It("should confirm at high confidence, unchanged", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceHigh))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("100.00"))
		})
	})

	When("a currency-marked OCR amount is within 5%", func() {
		BeforeEach(func() {
			ocrText = "Order paid\nTotal ₹97\nThank you"
		})

		It("should correct to the OCR value at medium confidence", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceMedium))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("97.00"))
		})
	})

	When("currency-marked OCR amounts disagree beyond 5%", func() {
		BeforeEach(func() {
			ocrText = "Coupon ₹40\nWallet ₹25"
		})

		It("should flag a mismatch at low confidence", func() {
			Expect(outcome.IsValid).To(BeFalse())
			Expect(outcome.Confidence).To(Equal(ConfidenceLow))
		})

		It("should resolve to the largest OCR amount", func() {
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("40.00"))
		})
	})

	When("several currency amounts sit within 5%", func() {
		BeforeEach(func() {
			ocrText = "₹97 and ₹104"
		})

		It("should pick the closest one", func() {
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("97.00"))
			Expect(outcome.Confidence).To(Equal(ConfidenceMedium))
		})
	})

	When("out-of-range currency amounts are the only marked figures", func() {
		BeforeEach(func() {
			generative = decimal.NewFromInt(250)
			ocrText = "₹999999 promo\nPaid 250 via UPI"
		})

		It("should ignore them and fall back to bare numbers", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceHigh))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("250.00"))
		})
	})

	When("only bare numbers exist and one equals the generative amount", func() {
		BeforeEach(func() {
			generative = decimal.NewFromInt(250)
			ocrText = "Paid 250 via UPI at 11:42"
		})

		It("should confirm at high confidence", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceHigh))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("250.00"))
		})
	})

	When("only bare numbers exist and one is within a paisa", func() {
		BeforeEach(func() {
			generative = decimal.NewFromFloat(249.99)
			ocrText = "Paid 250 via UPI"
		})

		It("should confirm at medium confidence, unchanged", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceMedium))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("249.99"))
		})
	})

	When("only distant bare numbers exist", func() {
		BeforeEach(func() {
			generative = decimal.NewFromInt(500)
			ocrText = "ref 120 slot 90"
		})

		It("should resolve to the closest bare number at low confidence", func() {
			Expect(outcome.IsValid).To(BeFalse())
			Expect(outcome.Confidence).To(Equal(ConfidenceLow))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("120.00"))
		})
	})

	When("the OCR text has no numbers at all", func() {
		BeforeEach(func() {
			ocrText = "Thank you for your order"
		})

		It("should pass the generative amount through at low confidence", func() {
			Expect(outcome.IsValid).To(BeTrue())
			Expect(outcome.Confidence).To(Equal(ConfidenceLow))
			Expect(outcome.ResolvedAmount.StringFixed(2)).To(Equal("100.00"))
		})
	})
})
