// Package awsutil builds the AWS session shared by the S3 blob store and the
// SNS event publisher.
package awsutil

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/session"
)

var ErrNoRegion = errors.New("awsutil: region is required")

// Config picks static credentials when both keys are given, then the
// environment, then the EC2 instance role.
func Config(region, accessKey, secretKey string) (*aws.Config, error) {
	if region == "" {
		return nil, ErrNoRegion
	}

	var cred *credentials.Credentials
	if accessKey != "" && secretKey != "" {
		cred = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		cred = credentials.NewEnvCredentials()
		if v, err := cred.Get(); err != nil || v.AccessKeyID == "" || v.SecretAccessKey == "" {
			base, err := session.NewSession()
			if err != nil {
				return nil, err
			}
			cred = ec2rolecreds.NewCredentials(base, func(p *ec2rolecreds.EC2RoleProvider) {
				p.ExpiryWindow = 5 * time.Minute
			})
		}
	}

	return &aws.Config{
		Credentials: cred,
		Region:      aws.String(region),
	}, nil
}

func NewSession(region, accessKey, secretKey string) (*session.Session, error) {
	cfg, err := Config(region, accessKey, secretKey)
	if err != nil {
		return nil, err
	}
	return session.NewSession(cfg)
}
