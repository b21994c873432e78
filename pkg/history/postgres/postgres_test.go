package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/history/postgres"
	testutils "github.com/papercomputeco/graphchat/pkg/utils/test"
)

var _ = Describe("Driver", func() {
	connStr := os.Getenv("POSTGRES_TEST_DSN")

	BeforeEach(func() {
		if connStr == "" {
			Skip("POSTGRES_TEST_DSN not set")
		}
	})

	testutils.DescribeHistoryDriver(func() history.Driver {
		d, err := postgres.NewDriver(context.Background(), connStr, nil)
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})
