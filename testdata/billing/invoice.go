package billing

// Total sums the invoice lines.
func Total(net, tax, discount, shipping, fee, rounding int) int {
	sum := net + tax - discount + shipping + fee
	if rounding > 0 {
		goto done
	}
	sum = sum - sum%10
done:
	return sum
}
