package alerts

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockAWSSNSClient implements awsSNSInterface for testing
type mockAWSSNSClient struct {
	mock.Mock
}

func (m *mockAWSSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func Test_NewAWSSNSClient(t *testing.T) {
	// Declare types in advance to make sure these are the types being returned
	var gotAWSSNSClient *awsSNSClient
	var err error

	// accessKeyID cannot be empty
	gotAWSSNSClient, err = NewAWSSNSClient("", "", "", "")
	require.Nil(t, gotAWSSNSClient)
	require.EqualError(t, err, "loading AWS config for SNS: aws accessKeyID is empty")

	// secretAccessKey cannot be empty
	gotAWSSNSClient, err = NewAWSSNSClient("accessKeyID", "", "", "")
	require.Nil(t, gotAWSSNSClient)
	require.EqualError(t, err, "loading AWS config for SNS: aws secretAccessKey is empty")

	// region cannot be empty
	gotAWSSNSClient, err = NewAWSSNSClient("accessKeyID", "secretAccessKey", "", "")
	require.Nil(t, gotAWSSNSClient)
	require.EqualError(t, err, "loading AWS config for SNS: aws region is empty")

	// [sms] type doesn't need a sender ID:
	gotAWSSNSClient, err = NewAWSSNSClient("accessKeyID", "secretAccessKey", "region", "  ")
	require.NoError(t, err)
	require.NotNil(t, gotAWSSNSClient)

	// [sms] all fields are present
	gotAWSSNSClient, err = NewAWSSNSClient("accessKeyID", "secretAccessKey", "region", "testSenderID")
	require.NoError(t, err)
	require.NotNil(t, gotAWSSNSClient)
}

func Test_AWSSNS_SendMessage_messageIsInvalid(t *testing.T) {
	var mAWS MessengerClient = &awsSNSClient{}
	err := mAWS.SendMessage(context.Background(), Message{})
	require.EqualError(t, err, "validating message to send an SMS through AWS: invalid message: phone number cannot be empty")
}

func Test_AWSSNS_SendMessage_errorIsHandledCorrectly(t *testing.T) {
	ctx := context.Background()
	testPhoneNumber := "+14155555555"
	testBody := "foo bar"
	testSenderID := "senderID"
	mAWSSNS := mockAWSSNSClient{}
	mAWSSNS.
		On("Publish", ctx, &sns.PublishInput{
			PhoneNumber: aws.String(testPhoneNumber),
			Message:     aws.String(testBody),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"AWS.SNS.SMS.SenderID": {StringValue: aws.String(testSenderID), DataType: aws.String("String")},
				"AWS.SNS.SMS.SMSType":  {StringValue: aws.String("Transactional"), DataType: aws.String("String")},
			},
		}).
		Return(nil, fmt.Errorf("test AWS SNS error")).
		Once()

	mAWS := awsSNSClient{snsService: &mAWSSNS, senderID: "senderID"}
	err := mAWS.SendMessage(ctx, Message{ToPhoneNumber: "+14155555555", Body: "foo bar"})
	require.EqualError(t, err, "sending AWS SNS SMS: test AWS SNS error")

	mAWSSNS.AssertExpectations(t)
}

func Test_AWSSNS_SendMessage_success(t *testing.T) {
	ctx := context.Background()
	testPhoneNumber := "+14152222222"
	testBody := "foo bar"
	testSenderID := "senderID"
	mAWSSNS := mockAWSSNSClient{}
	mAWSSNS.
		On("Publish", ctx, &sns.PublishInput{
			PhoneNumber: aws.String(testPhoneNumber),
			Message:     aws.String(testBody),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"AWS.SNS.SMS.SenderID": {StringValue: aws.String(testSenderID), DataType: aws.String("String")},
				"AWS.SNS.SMS.SMSType":  {StringValue: aws.String("Transactional"), DataType: aws.String("String")},
			},
		}).
		Return(nil, nil).
		Once()

	mAWS := awsSNSClient{snsService: &mAWSSNS, senderID: "senderID"}
	err := mAWS.SendMessage(ctx, Message{ToPhoneNumber: "+14152222222", Body: "foo bar"})
	require.NoError(t, err)

	mAWSSNS.AssertExpectations(t)
}

func Test_AWSSNS_SendMessage_withoutSenderID(t *testing.T) {
	ctx := context.Background()
	testPhoneNumber := "+14152222222"
	testBody := "foo bar"
	mAWSSNS := mockAWSSNSClient{}
	mAWSSNS.
		On("Publish", ctx, &sns.PublishInput{
			PhoneNumber: aws.String(testPhoneNumber),
			Message:     aws.String(testBody),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"AWS.SNS.SMS.SMSType": {StringValue: aws.String("Transactional"), DataType: aws.String("String")},
			},
		}).
		Return(nil, nil).
		Once()

	mAWS := awsSNSClient{snsService: &mAWSSNS}
	err := mAWS.SendMessage(ctx, Message{ToPhoneNumber: "+14152222222", Body: "foo bar"})
	require.NoError(t, err)

	mAWSSNS.AssertExpectations(t)
}
