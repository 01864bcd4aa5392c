package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cachebench/retry"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

var _ = Describe("Classify", func() {
	It("treats timeouts and connection errors as transient", func() {
		Expect(retry.Transient(context.DeadlineExceeded)).To(BeTrue())
		Expect(retry.Transient(os.ErrDeadlineExceeded)).To(BeTrue())
		Expect(retry.Transient(timeoutError{})).To(BeTrue())
		Expect(retry.Transient(&net.OpError{Op: "dial", Err: errors.New("connection refused")})).To(BeTrue())
		Expect(retry.Transient(fmt.Errorf("redis: %w", timeoutError{}))).To(BeTrue())
	})

	It("treats cluster redirection and resharding replies as transient", func() {
		Expect(retry.Transient(errors.New("MOVED 3999 127.0.0.1:6381"))).To(BeTrue())
		Expect(retry.Transient(errors.New("ASK 3999 127.0.0.1:6381"))).To(BeTrue())
		Expect(retry.Transient(errors.New("TRYAGAIN Multiple keys request during rehashing of slot"))).To(BeTrue())
		Expect(retry.Transient(errors.New("CLUSTERDOWN The cluster is down"))).To(BeTrue())
		Expect(retry.Transient(errors.New("LOADING Redis is loading the dataset in memory"))).To(BeTrue())
	})

	It("treats auth and protocol errors as permanent", func() {
		Expect(retry.Transient(errors.New("NOAUTH Authentication required."))).To(BeFalse())
		Expect(retry.Transient(errors.New("WRONGPASS invalid username-password pair"))).To(BeFalse())
		Expect(retry.Transient(errors.New("ERR unknown command 'GETT'"))).To(BeFalse())
	})

	It("maps errors to classes", func() {
		Expect(retry.Classify(nil)).To(Equal(retry.ClassNone))
		Expect(retry.Classify(context.DeadlineExceeded)).To(Equal(retry.ClassTransient))
		Expect(retry.Classify(errors.New("NOAUTH Authentication required."))).To(Equal(retry.ClassPermanent))
	})
})
