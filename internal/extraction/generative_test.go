package extraction

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseGenerativeJSON", func() {
	var (
		response string
		result   *GenerativeExtraction
		err      error
	)

	JustBeforeEach(func() {
		result, err = parseGenerativeJSON(response)
	})

	When("parsing a valid single-amount response", func() {
		BeforeEach(func() {
			response = `{"total_amount": 484.0}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the amount", func() {
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("484.00"))
		})

		It("should have no items", func() {
			Expect(result.Items).To(BeEmpty())
		})
	})

	When("the response is wrapped in markdown code fences", func() {
		BeforeEach(func() {
			response = "```json\n{\"total_amount\": 210.50}\n```"
		})

		It("should strip the fences and parse", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("210.50"))
		})
	})

	When("the response carries items", func() {
		BeforeEach(func() {
			response = `{"total_amount": 447.0, "items": [
				{"name": "Whole Wheat Atta", "quantity": "5 kg x 1", "price": 327.0},
				{"name": "Curd Cups", "quantity": 8, "price": 120.0}
			]}`
		})

		It("should parse all items", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Items).To(HaveLen(2))
		})

		It("should keep quantity text verbatim", func() {
			Expect(result.Items[0].Quantity).To(Equal("5 kg x 1"))
		})

		It("should stringify numeric quantities", func() {
			Expect(result.Items[1].Quantity).To(Equal("8"))
		})
	})

	When("the model reports an explicit error", func() {
		BeforeEach(func() {
			response = `{"error": "receipt is unreadable"}`
		})

		It("should fail as a malformed response", func() {
			Expect(errors.Is(err, ErrMalformedResponse)).To(BeTrue())
		})
	})

	When("the amount is missing", func() {
		BeforeEach(func() {
			response = `{"items": []}`
		})

		It("should fail the schema check", func() {
			Expect(errors.Is(err, ErrMalformedResponse)).To(BeTrue())
		})
	})

	When("the amount is not numeric", func() {
		BeforeEach(func() {
			response = `{"total_amount": "four hundred"}`
		})

		It("should fail the schema check", func() {
			Expect(errors.Is(err, ErrMalformedResponse)).To(BeTrue())
		})
	})

	When("the response contains no JSON", func() {
		BeforeEach(func() {
			response = "Sorry, I could not read the image."
		})

		It("should fail as a malformed response", func() {
			Expect(errors.Is(err, ErrMalformedResponse)).To(BeTrue())
		})
	})

	When("the JSON is surrounded by prose", func() {
		BeforeEach(func() {
			response = `Here is the result: {"total_amount": 94.0} as requested.`
		})

		It("should isolate and parse the object", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("94.00"))
		})
	})
})
